package dispatcher

import (
	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
)

func (d *Dispatcher) execHash(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	switch verb {
	case "HSET":
		if len(args) != 3 {
			return resp.Err(resp.ErrParse, "HSET requires key, field, value"), nil
		}
		undo := snapshotFlex(db, args[0])
		_, err := db.Flex.HSet(args[0], args[1], args[2])
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		return resp.OK(), undo

	case "HGET":
		if len(args) != 2 {
			return resp.Err(resp.ErrParse, "HGET requires key and field"), nil
		}
		v, found, err := db.Flex.HGet(args[0], args[1])
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		if !found {
			return resp.NullBulk(), nil
		}
		return resp.BulkString(v), nil

	case "HGETALL":
		if len(args) != 1 {
			return resp.Err(resp.ErrParse, "HGETALL requires a key"), nil
		}
		h, err := db.Flex.HGetAll(args[0])
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		items := make([]resp.Reply, 0, len(h)*2)
		for field, val := range h {
			items = append(items, resp.BulkString(field), resp.BulkString(val))
		}
		return resp.Array(items), nil
	}
	return resp.Err(resp.ErrParse, "unknown command "+verb), nil
}
