package usecase

import "fmt"

// ErrPersistence indicates an infrastructure/repository failure inside a use
// case. Callers report it generically and log the wrapped detail server-side.
var ErrPersistence = fmt.Errorf("chat use case persistence error")
