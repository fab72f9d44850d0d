package domain

type CtxKey string

const (
	KeyAccountID    CtxKey = "AccountID"
	KeyAccountEmail CtxKey = "AccountEmail"
	KeyRequestID    CtxKey = "RequestID"
)
