package ledger

import "errors"

// Kind classifies a rejected transaction.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicate
	KindStateConflict
	KindNotFound
	KindPermission
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	}
	return "unknown"
}

// Error is a caller-visible rejection. A rejected transaction never mutates state.
//
// errors.Is matches an *Error target by Code when the target carries one,
// otherwise by Kind, so both errors.Is(err, ErrDocumentExists) and
// errors.Is(err, ErrDuplicate) hold for a duplicate publish.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return t.Code == e.Code
	}
	return t.Kind == e.Kind
}

// Kind sentinels.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrDuplicate     = &Error{Kind: KindDuplicate}
	ErrStateConflict = &Error{Kind: KindStateConflict}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrPermission    = &Error{Kind: KindPermission}
)

// Code sentinels.
var (
	ErrInvalidInput      = &Error{Kind: KindValidation, Code: "invalid_input", Msg: "invalid input"}
	ErrAlreadyRegistered = &Error{Kind: KindDuplicate, Code: "already_registered", Msg: "user is already registered"}
	ErrDocumentExists    = &Error{Kind: KindDuplicate, Code: "document_exists", Msg: "article with this title already exists"}
	ErrAlreadyVoted      = &Error{Kind: KindStateConflict, Code: "already_voted", Msg: "already voted for this article"}
	ErrArticleNotFound   = &Error{Kind: KindNotFound, Code: "article_not_found", Msg: "article not found"}
	ErrNotRegistered     = &Error{Kind: KindNotFound, Code: "not_registered", Msg: "user is not registered"}
	ErrForbidden         = &Error{Kind: KindPermission, Code: "forbidden", Msg: "caller is not allowed to perform this operation"}
)

// KindOf returns the kind of a ledger rejection, or 0 when err is not one.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

// CodeOf returns the code of a ledger rejection, or "" when err is not one.
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
