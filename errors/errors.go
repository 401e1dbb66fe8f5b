package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrUserAlreadyExists  = fmt.Errorf("username already taken")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid token")
	ErrBufferFull         = fmt.Errorf("send buffer full")
	ErrSinkClosed         = fmt.Errorf("sink closed")
)
