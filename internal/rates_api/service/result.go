package service

type Status int

const (
	StatusOK Status = iota
	StatusRateLimited
)

func (s Status) String() string {
	return [...]string{"ok", "rate_limited"}[s]
}

// Result is the outcome of a fetch that reached a definite answer.
// Hard failures are reported through the error return instead.
type Result[T any] struct {
	Status    Status
	Data      T
	Message   string
	FromCache bool
}

func (r Result[T]) RateLimited() bool {
	return r.Status == StatusRateLimited
}

func ok[T any](data T, fromCache bool) Result[T] {
	return Result[T]{Status: StatusOK, Data: data, FromCache: fromCache}
}

func rateLimited[T any](message string) Result[T] {
	return Result[T]{Status: StatusRateLimited, Message: message}
}
