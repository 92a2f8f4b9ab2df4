package apperr

import (
	"context"
	"errors"
	"net"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind buckets operation failures by how callers should react: NotFound is
// rendered as a placeholder and never fatal, PermissionDenied is logged per
// sub-fetch, Transient clears pending state and allows a retry.
type Kind int

const (
	KindTransient Kind = iota
	KindNotFound
	KindPermissionDenied
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "transient"
	}
}

// Classify maps an error from the store or network onto the taxonomy.
// Anything unrecognized is treated as transient: reads degrade to an empty
// state and writes may be retried.
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return KindNotFound
	}

	errStr := err.Error()
	if strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "not authorized") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "PERMISSION_DENIED") {
		return KindPermissionDenied
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		// 13 = Unauthorized in the server's error code table
		if cmdErr.Code == 13 {
			return KindPermissionDenied
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}

	return KindTransient
}

func IsNotFound(err error) bool {
	return err != nil && Classify(err) == KindNotFound
}

func IsPermissionDenied(err error) bool {
	return err != nil && Classify(err) == KindPermissionDenied
}
