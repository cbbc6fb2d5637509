package dispatcher

import (
	"fmt"

	"github.com/UnSetSoft/ToriDB/internal/resp"
)

// Checkpoint snapshots dbName to disk and truncates its log to empty —
// the same operation SAVE performs, reused here for the periodic
// scheduler tick. It bypasses the session/ACL layer entirely, the way
// ReplayInto does for log replay, since a background tick has no
// connected principal to authorize against.
func (d *Dispatcher) Checkpoint(dbName string) error {
	db, err := d.Registry.Get(dbName)
	if err != nil {
		return err
	}
	if reply := d.execSave(db); reply.Kind == resp.KindError {
		return fmt.Errorf("dispatcher: checkpoint %q: %s", dbName, reply.ErrMsg)
	}
	return nil
}
