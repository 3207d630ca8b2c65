package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "deploy":
		return deployTemplate, nil
	case "actions":
		return actionsTemplate, nil
	case "react":
		return reactTemplate, nil
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

const deployTemplate = `root = "."
service_dir = "services"
runner = "local"
command_timeout = "10m"
metrics_file = ""

[[services]]
name = "web"
version = "1.0"

[[services]]
name = "db"
version = "14"

[ssh]
host = ""
port = "22"
user = ""
key_path = ""
known_hosts = ""
insecure_skip_host_key = false
timeout = "10s"
`

const actionsTemplate = `{
  "migrate": {"command": "./manage.py migrate --noinput"},
  "collectstatic": {"command": "./manage.py collectstatic --noinput"},
  "restart": {"command": "systemctl restart web", "not_after": ["db.restore"]}
}
`

const reactTemplate = `[
  {"execute": ["migrate", "restart"], "when": {"files": ["**/migrations/*.py"]}},
  {"execute": ["collectstatic"], "when": {"files": ["static/**"]}},
  {"execute": ["restart"], "when": {"command": "test -f .needs-restart", "exitcode": 0}}
]
`
