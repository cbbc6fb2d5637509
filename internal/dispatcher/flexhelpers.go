package dispatcher

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/value"
)

// snapshotFlex captures key's pre-mutation state and returns a closure
// that restores it, for use as a COMMIT undo entry. Call it before
// mutating key.
func snapshotFlex(db *registry.Database, key string) func() {
	oldVal, existed := db.Flex.Get(key)
	var oldExpire time.Time
	if existed {
		oldExpire, _ = db.Flex.ExpireAt(key)
	}
	return func() {
		if existed {
			db.Flex.Restore(key, oldVal, oldExpire)
		} else {
			db.Flex.Del(key)
		}
	}
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", s)
	}
	return n, nil
}

// wrongtypeOrInternal classifies a flex-store mutator error for the wire:
// a *value.TypeMismatch becomes ErrTypeMismatch, anything else ErrInternal.
func wrongtypeOrInternal(err error) resp.Reply {
	var tm *value.TypeMismatch
	if errors.As(err, &tm) {
		return resp.Err(resp.ErrTypeMismatch, err.Error())
	}
	return resp.Err(resp.ErrInternal, err.Error())
}
