package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindServer = "server"
	KindDecode = "decode"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindServer:
		return serverTemplate, nil
	case KindDecode:
		return decodeTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `name = "fixlens"
addr = ":8000"
cors_origins = ["http://localhost:3000"]
dict_dir = "dicts"
max_upload_bytes = 4194304
upload_token = ""

[export]
enabled = false

[export.splunk]
url = ""
token = ""
sourcetype = "fix:parsed"

[export.datadog]
api_key = ""
source = "fix-parser"
service = "fix"

[export.cloudwatch]
log_group = ""
log_stream = ""
region = "eu-west-1"
endpoint = ""
`

const decodeTemplate = `dictionaries = ["dicts/FIX44.xml"]
format = "text"
summary_only = false
`
