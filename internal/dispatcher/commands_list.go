package dispatcher

import (
	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
	"github.com/UnSetSoft/ToriDB/internal/value"
)

func (d *Dispatcher) execList(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	switch verb {
	case "LPUSH", "RPUSH":
		if len(args) < 2 {
			return resp.Err(resp.ErrParse, verb+" requires key and at least one member"), nil
		}
		key := args[0]
		members := make([]value.Value, len(args)-1)
		for i, tok := range args[1:] {
			members[i] = value.ParseLiteral(tok)
		}
		undo := snapshotFlex(db, key)
		var n int
		var err error
		if verb == "LPUSH" {
			n, err = db.Flex.LPush(key, members...)
		} else {
			n, err = db.Flex.RPush(key, members...)
		}
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		return resp.Int(int64(n)), undo

	case "LPOP", "RPOP":
		if len(args) != 1 && len(args) != 2 {
			return resp.Err(resp.ErrParse, verb+" requires key and optional count"), nil
		}
		key := args[0]
		count := 1
		if len(args) == 2 {
			n, err := parseInt(args[1])
			if err != nil {
				return resp.Err(resp.ErrParse, err.Error()), nil
			}
			count = int(n)
		}
		undo := snapshotFlex(db, key)
		var popped []value.Value
		var err error
		if verb == "LPOP" {
			popped, err = db.Flex.LPop(key, count)
		} else {
			popped, err = db.Flex.RPop(key, count)
		}
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		items := make([]resp.Reply, len(popped))
		for i, v := range popped {
			items[i] = resp.BulkString(value.AsString(v))
		}
		return resp.Array(items), undo

	case "LRANGE":
		if len(args) != 3 {
			return resp.Err(resp.ErrParse, "LRANGE requires key, start, stop"), nil
		}
		start, err := parseInt(args[1])
		if err != nil {
			return resp.Err(resp.ErrParse, err.Error()), nil
		}
		stop, err := parseInt(args[2])
		if err != nil {
			return resp.Err(resp.ErrParse, err.Error()), nil
		}
		vals, err := db.Flex.LRange(args[0], int(start), int(stop))
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		items := make([]resp.Reply, len(vals))
		for i, v := range vals {
			items[i] = resp.BulkString(value.AsString(v))
		}
		return resp.Array(items), nil
	}
	return resp.Err(resp.ErrParse, "unknown command "+verb), nil
}
