package config

import (
	"os"
	"strconv"
	"strings"
)

const DATABASE_TYPE = "GTRIG_DATABASE_TYPE"
const DATABASE_URL = "GTRIG_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "GTRIG_DATABASE_SQLLITE_FILE_NAME"
const ENGINE_SERVER_WEB_PORT = "GTRIG_ENGINE_SERVER_WEB_PORT"
const ENGINE_EXECUTOR_SIZE = "GTRIG_ENGINE_EXECUTOR_SIZE" //number of workers consuming dispatched jobs
const ENGINE_QUEUE_SIZE = "GTRIG_ENGINE_QUEUE_SIZE"       //buffer of the in memory dispatcher
const ENGINE_HEARTBEAT_INTERVAL = "GTRIG_ENGINE_HEARTBEAT_INTERVAL"
const ENGINE_DISPATCH_TYPE = "GTRIG_ENGINE_DISPATCH_TYPE"
const MAX_LOG_ENTRIES = "GTRIG_MAX_LOG_ENTRIES" //"none" disables the bound
const CAPABILITIES = "GTRIG_CAPABILITIES"       //comma separated, e.g. redis,firebase
const REDIS_ADDR = "GTRIG_REDIS_ADDR"
const REDIS_PASSWORD = "GTRIG_REDIS_PASSWORD"
const REDIS_DB = "GTRIG_REDIS_DB"
const REDIS_QUEUE = "GTRIG_REDIS_QUEUE"
const FIREBASE_SERVER_KEY = "GTRIG_FIREBASE_SERVER_KEY"
const FIREBASE_URL = "GTRIG_FIREBASE_URL"
const ACTION_HTTP_TIMEOUT = "GTRIG_ACTION_HTTP_TIMEOUT"
const EXECUTOR_NAME = "GTRIG_EXECUTOR_NAME"
const BOOTSTRAP_API_KEY = "GTRIG_BOOTSTRAP_API_KEY" //"<keyId>.<secret>" registered at startup when missing

const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"

const DISPATCH_TYPE_MEMORY = "MEMORY"
const DISPATCH_TYPE_REDIS = "REDIS"

const CAPABILITY_REDIS = "redis"
const CAPABILITY_FIREBASE = "firebase"

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, _ := strconv.Atoi(val)
		return intValue
	}
	return 0
}

func GetSystemSettingBool(settingKey string) bool {
	b, _ := strconv.ParseBool(GetSystemSettingString(settingKey))
	return b
}

// GetSystemSettingList splits a comma separated setting, dropping blanks.
func GetSystemSettingList(settingKey string) []string {
	var out []string
	for _, part := range strings.Split(GetSystemSettingString(settingKey), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MaxLogEntries returns the per workflow log bound, 0 when disabled.
func MaxLogEntries() int {
	val := GetSystemSettingString(MAX_LOG_ENTRIES)
	if strings.EqualFold(val, "none") || strings.EqualFold(val, "null") {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 100
	}
	return n
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	if settingKey == ENGINE_EXECUTOR_SIZE {
		return "5" // default to 5
	}
	if settingKey == ENGINE_QUEUE_SIZE {
		return "100"
	}
	if settingKey == ENGINE_HEARTBEAT_INTERVAL {
		return "30s"
	}
	if settingKey == ENGINE_DISPATCH_TYPE {
		return DISPATCH_TYPE_MEMORY
	}
	if settingKey == MAX_LOG_ENTRIES {
		return "100"
	}
	if settingKey == ENGINE_SERVER_WEB_PORT {
		return "8080"
	}
	if settingKey == DATABASE_SQLLITE_FILE_NAME {
		return "./gtrig.db"
	}
	if settingKey == REDIS_ADDR {
		return "localhost:6379"
	}
	if settingKey == REDIS_DB {
		return "0"
	}
	if settingKey == REDIS_QUEUE {
		return "gophertrigger:jobs"
	}
	if settingKey == FIREBASE_URL {
		return "https://fcm.googleapis.com/fcm/send"
	}
	if settingKey == ACTION_HTTP_TIMEOUT {
		return "10s"
	}
	return ""
}
