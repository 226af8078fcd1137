package core

type ctxKey string

const (
	CtxKeyExecutorId ctxKey = ctxKey("executorId")
	CtxKeyApiClient  ctxKey = ctxKey("apiClient")
	CtxKeyWorkerId   ctxKey = ctxKey("workerId")
	CtxKeyJobId      ctxKey = ctxKey("jobId")
)
