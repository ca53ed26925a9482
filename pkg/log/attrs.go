package log

import (
	"log/slog"
	"time"
)

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func Workflow(name string) slog.Attr {
	return slog.String("workflow", name)
}

func Step(name string) slog.Attr {
	return slog.String("step", name)
}

func StepType[T ~string](typ T) slog.Attr {
	return slog.String("step_type", string(typ))
}

func Task(task string) slog.Attr {
	return slog.String("task", task)
}

func Elapsed(d time.Duration) slog.Attr {
	return slog.Duration("elapsed", d)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
