package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindTransient},
		{"no documents", mongo.ErrNoDocuments, KindNotFound},
		{"wrapped no documents", fmt.Errorf("load project: %w", mongo.ErrNoDocuments), KindNotFound},
		{"unauthorized string", errors.New("unauthorized access to collection"), KindPermissionDenied},
		{"provider denial", errors.New("rpc error: PERMISSION_DENIED"), KindPermissionDenied},
		{"command code 13", mongo.CommandError{Code: 13, Message: "command find requires authentication"}, KindPermissionDenied},
		{"command code other", mongo.CommandError{Code: 11600, Message: "interrupted at shutdown"}, KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"cancelled", context.Canceled, KindTransient},
		{"unknown", errors.New("something odd"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	if IsNotFound(nil) {
		t.Error("IsNotFound(nil) = true")
	}
	if !IsNotFound(mongo.ErrNoDocuments) {
		t.Error("IsNotFound(ErrNoDocuments) = false")
	}
	if IsPermissionDenied(nil) {
		t.Error("IsPermissionDenied(nil) = true")
	}
	if !IsPermissionDenied(errors.New("permission denied")) {
		t.Error("IsPermissionDenied(permission denied) = false")
	}
	if IsPermissionDenied(errors.New("timeout")) {
		t.Error("IsPermissionDenied(timeout) = true")
	}
}
