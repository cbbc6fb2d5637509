package dispatcher

import (
	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
)

func (d *Dispatcher) execSet(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	switch verb {
	case "SADD":
		if len(args) < 2 {
			return resp.Err(resp.ErrParse, "SADD requires key and at least one member"), nil
		}
		undo := snapshotFlex(db, args[0])
		n, err := db.Flex.SAdd(args[0], args[1:]...)
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		return resp.Int(int64(n)), undo

	case "SMEMBERS":
		if len(args) != 1 {
			return resp.Err(resp.ErrParse, "SMEMBERS requires a key"), nil
		}
		members, err := db.Flex.SMembers(args[0])
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		items := make([]resp.Reply, len(members))
		for i, m := range members {
			items[i] = resp.BulkString(m)
		}
		return resp.Array(items), nil
	}
	return resp.Err(resp.ErrParse, "unknown command "+verb), nil
}
