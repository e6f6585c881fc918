package app

import (
	"log/slog"

	"cropscout/internal/domain/entity"
)

// run состояние одного прохода конвейера создания точки
type run struct {
	state entity.SpotState
	log   *slog.Logger
}

func newRun(log *slog.Logger) *run {
	log.Debug("spot state", "state", entity.StateReceived)
	return &run{state: entity.StateReceived, log: log}
}

func (r *run) to(next entity.SpotState) {
	if !r.state.CanTransition(next) {
		r.log.Warn("unexpected spot state transition", "from", r.state, "to", next)
	}
	r.log.Debug("spot state", "from", r.state, "to", next)
	r.state = next
}

// reject ошибка без смены состояния (отказ до проверки геозоны)
func (r *run) reject(code entity.ErrorCode, msg string, err error) *entity.Error {
	return &entity.Error{Code: code, Message: msg, State: r.state, Err: err}
}

// fail переводит конвейер в состояние отказа и возвращает ошибку
func (r *run) fail(state entity.SpotState, code entity.ErrorCode, msg string, err error) *entity.Error {
	r.to(state)
	return r.reject(code, msg, err)
}
