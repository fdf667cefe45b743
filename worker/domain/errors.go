package domain

import "errors"

var (
	ErrStoreUnavailable = errors.New("key-value store unavailable")
	ErrDispatchFailed   = errors.New("email dispatch failed")
	ErrAnalyticsFailed  = errors.New("analytics query failed")
)
