package dispatcher

import (
	"fmt"

	"github.com/UnSetSoft/ToriDB/internal/durability"
	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
)

// ReplayInto returns a durability.ReplayFunc that applies a logged request
// tuple straight to db, bypassing ACL, session state, and the registry's
// by-name lookup entirely. Bootstrap calls this while db is still being
// built and before it is registered under its name, so the replay target
// must be the *registry.Database Bootstrap already holds, not something
// looked up through the registry (which would race the registration, or
// deadlock on Bootstrap's own lock).
func ReplayInto(db *registry.Database) durability.ReplayFunc {
	d := &Dispatcher{}
	return func(dbname string, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("dispatcher: empty logged tuple for database %q", dbname)
		}
		verb, rest := args[0], args[1:]
		reply, _ := d.execute(db, verb, rest)
		if reply.Kind == resp.KindError {
			return fmt.Errorf("dispatcher: replay of %s on %q failed: %s", verb, dbname, reply.ErrMsg)
		}
		return nil
	}
}
