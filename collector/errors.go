package collector

import "errors"

var ErrAlreadyResolved = errors.New("collection request already resolved")
