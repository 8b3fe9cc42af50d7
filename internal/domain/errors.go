package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind классифицирует ошибки по тому, как их должен обработать вызывающий слой.
type ErrorKind string

const (
	// KindValidation: структурная ошибка запроса, найденная до бизнес-логики.
	KindValidation ErrorKind = "validation"
	// KindBusinessRule: нарушение бизнес-правила (нулевое количество, пустой заказ и т.п.).
	KindBusinessRule ErrorKind = "business_rule"
	// KindNotFound: сущность, на которую ссылается запрос, отсутствует.
	KindNotFound ErrorKind = "not_found"
	// KindConflict: нарушение уникальности или блокировка зависимыми записями.
	KindConflict ErrorKind = "conflict"
	// KindUnexpected: инфраструктурный сбой; детали не показываются клиенту.
	KindUnexpected ErrorKind = "unexpected"
)

var (
	// ErrValidation позволяет проверять ошибки валидации через errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrBusinessRule: общий маркер нарушения бизнес-правил.
	ErrBusinessRule = errors.New("business rule violation")
	// ErrNotFound: общий маркер отсутствующей сущности.
	ErrNotFound = errors.New("not found")
	// ErrConflict: общий маркер конфликта.
	ErrConflict = errors.New("conflict")
	// ErrDuplicateKey возвращается хранилищем при нарушении unique-ограничения.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// Error: типизированная ошибка доменного слоя.
type Error struct {
	Kind    ErrorKind
	Message string
	// Fields заполняется только для KindValidation, порядок совпадает с порядком правил.
	Fields []string
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, "; "))
	}
	return e.Message
}

// Is связывает типизированную ошибку с sentinel-ошибкой своего вида.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindBusinessRule:
		return target == ErrBusinessRule
	case KindNotFound:
		return target == ErrNotFound
	case KindConflict:
		return target == ErrConflict
	}
	return false
}

// NewValidationError собирает ошибку валидации из списка сообщений по полям.
func NewValidationError(fields []string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// BusinessRulef создаёт ошибку нарушения бизнес-правила.
func BusinessRulef(format string, args ...any) *Error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf создаёт ошибку отсутствующей сущности.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf создаёт ошибку конфликта.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf возвращает вид ошибки; всё, что не *Error, считается KindUnexpected.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

// IsDuplicateKey проверяет, является ли ошибка нарушением уникальности в хранилище.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
