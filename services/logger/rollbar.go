package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/darasa/core"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Address)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled && rollbar.Token() != "")
}

// prepare builds the rollbar args: msg, any errors, then a single custom data map.
// The first core.Identity becomes the rollbar person; its role is added to the data.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var (
		person *core.Identity
		extras map[string]interface{}
	)
	newArgs := []interface{}{msg}
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Identity:
			if person == nil {
				person = &a
			}
		case map[string]interface{}:
			if extras == nil {
				extras = make(map[string]interface{}, len(a)+1)
			}
			for k, v := range a {
				extras[k] = v
			}
		default:
			newArgs = append(newArgs, arg)
		}
	}

	if person != nil {
		rollbar.SetPerson(person.UserID, person.Name, person.Email)
		if extras == nil {
			extras = make(map[string]interface{}, 1)
		}
		extras["role"] = person.Role
	} else {
		rollbar.ClearPerson()
	}
	if extras != nil {
		newArgs = append(newArgs, extras)
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		if id, ok := arg.(core.Identity); ok {
			l.std.Printf("\tuser: %s <%s> (%s)", id.UserID, id.Email, id.Role)
			continue
		}
		l.std.Printf("\t%+v", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
