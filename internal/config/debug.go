package config

import "os"

func IsDebug() bool {
	return os.Getenv("LETTERDESK_DEBUG") == "1"
}
