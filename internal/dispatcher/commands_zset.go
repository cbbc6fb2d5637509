package dispatcher

import (
	"strconv"

	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
)

func (d *Dispatcher) execZSet(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	switch verb {
	case "ZADD":
		if len(args) != 3 {
			return resp.Err(resp.ErrParse, "ZADD requires key, score, member"), nil
		}
		score, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return resp.Err(resp.ErrParse, "ZADD score must be a float"), nil
		}
		undo := snapshotFlex(db, args[0])
		if err := db.Flex.ZAdd(args[0], args[2], score); err != nil {
			return wrongtypeOrInternal(err), nil
		}
		return resp.OK(), undo

	case "ZRANGE":
		if len(args) != 3 {
			return resp.Err(resp.ErrParse, "ZRANGE requires key, start, stop"), nil
		}
		start, err := parseInt(args[1])
		if err != nil {
			return resp.Err(resp.ErrParse, err.Error()), nil
		}
		stop, err := parseInt(args[2])
		if err != nil {
			return resp.Err(resp.ErrParse, err.Error()), nil
		}
		members, err := db.Flex.ZRange(args[0], int(start), int(stop))
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		items := make([]resp.Reply, len(members))
		for i, m := range members {
			items[i] = resp.BulkString(m.Member)
		}
		return resp.Array(items), nil

	case "ZSCORE":
		if len(args) != 2 {
			return resp.Err(resp.ErrParse, "ZSCORE requires key and member"), nil
		}
		score, found, err := db.Flex.ZScore(args[0], args[1])
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		if !found {
			return resp.NullBulk(), nil
		}
		return resp.BulkString(strconv.FormatFloat(score, 'g', -1, 64)), nil
	}
	return resp.Err(resp.ErrParse, "unknown command "+verb), nil
}
