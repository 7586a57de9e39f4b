package service

import (
	"database/sql"
	"errors"
	"log/slog"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// ValidationError — некорректный ввод или недопустимое действие, клиент получает 400 с причиной
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string        { return e.Reason }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError — объект не найден или принадлежит другому пользователю, клиент получает 404
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string        { return e.Reason }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func validationErr(reason string) error { return &ValidationError{Reason: reason} }
func notFoundErr(reason string) error   { return &NotFoundError{Reason: reason} }

// Reason достаёт текст для клиента. Для внутренних ошибок детали не раскрываем
func Reason(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Reason
	}
	return "internal error"
}

func rollback(logger *slog.Logger, tx *sql.Tx) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}
