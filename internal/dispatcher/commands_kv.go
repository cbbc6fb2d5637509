package dispatcher

import (
	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/value"
)

func (d *Dispatcher) execKV(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	switch verb {
	case "GET":
		if len(args) != 1 {
			return resp.Err(resp.ErrParse, "GET requires a key"), nil
		}
		v, ok := db.Flex.Get(args[0])
		if !ok {
			return resp.NullBulk(), nil
		}
		return resp.BulkString(value.AsString(v)), nil

	case "SET":
		if len(args) != 2 {
			return resp.Err(resp.ErrParse, "SET requires key and value"), nil
		}
		undo := snapshotFlex(db, args[0])
		db.Flex.Set(args[0], value.ParseLiteral(args[1]))
		return resp.OK(), undo

	case "SETEX":
		if len(args) != 3 {
			return resp.Err(resp.ErrParse, "SETEX requires key, value, ttl"), nil
		}
		ttl, err := parseInt(args[2])
		if err != nil {
			return resp.Err(resp.ErrParse, err.Error()), nil
		}
		undo := snapshotFlex(db, args[0])
		db.Flex.SetEx(args[0], value.ParseLiteral(args[1]), ttl)
		return resp.OK(), undo

	case "TTL":
		if len(args) != 1 {
			return resp.Err(resp.ErrParse, "TTL requires a key"), nil
		}
		return resp.Int(db.Flex.TTL(args[0])), nil

	case "DEL":
		if len(args) == 0 {
			return resp.Err(resp.ErrParse, "DEL requires at least one key"), nil
		}
		var undos []func()
		var n int64
		for _, k := range args {
			undos = append(undos, snapshotFlex(db, k))
			if db.Flex.Del(k) {
				n++
			}
		}
		return resp.Int(n), func() {
			for i := len(undos) - 1; i >= 0; i-- {
				undos[i]()
			}
		}

	case "INCR", "DECR":
		if len(args) != 1 {
			return resp.Err(resp.ErrParse, verb+" requires a key"), nil
		}
		delta := int64(1)
		if verb == "DECR" {
			delta = -1
		}
		undo := snapshotFlex(db, args[0])
		n, err := db.Flex.Incr(args[0], delta)
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		return resp.Int(n), undo
	}
	return resp.Err(resp.ErrParse, "unknown command "+verb), nil
}
