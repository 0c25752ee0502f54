package session

import (
	"os"
	"strings"

	"github.com/matheus3301/tourchat/internal/config"
)

// DefaultSessionName is the session used when nothing else names one. Its
// state lives under $TOURCHAT_HOME/sessions/main.
const DefaultSessionName = "main"

// EnvSession names the session for both tourchat and tourctl, so a shell
// can stay pointed at a second marketplace account.
const EnvSession = "TOURCHAT_SESSION"

// Resolve picks the active session: the --session flag, then
// $TOURCHAT_SESSION, then default_session from config.toml, then "main".
// Blank values are skipped. The result is not validated.
func Resolve(flagOverride string) string {
	if name := strings.TrimSpace(flagOverride); name != "" {
		return name
	}
	if name := strings.TrimSpace(os.Getenv(EnvSession)); name != "" {
		return name
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil {
		if name := strings.TrimSpace(cfg.DefaultSession); name != "" {
			return name
		}
	}
	return DefaultSessionName
}
