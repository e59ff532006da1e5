package svc

import "errors"

var ErrNoFeedsEnabled = errors.New("no price feeds enabled")

var ErrStorageInitFailed = errors.New("storage initialization failed")
