package dispatcher

import (
	"github.com/UnSetSoft/ToriDB/internal/registry"
	"github.com/UnSetSoft/ToriDB/internal/resp"
)

func (d *Dispatcher) execJSON(db *registry.Database, verb string, args []string) (resp.Reply, func()) {
	switch verb {
	case "JSON.SET":
		if len(args) != 3 {
			return resp.Err(resp.ErrParse, "JSON.SET requires key, path, value"), nil
		}
		undo := snapshotFlex(db, args[0])
		if err := db.Flex.JSONSet(args[0], args[1], args[2]); err != nil {
			return resp.Err(resp.ErrParse, err.Error()), nil
		}
		return resp.OK(), undo

	case "JSON.GET":
		if len(args) != 1 && len(args) != 2 {
			return resp.Err(resp.ErrParse, "JSON.GET requires key and optional path"), nil
		}
		path := ""
		if len(args) == 2 {
			path = args[1]
		}
		out, found, err := db.Flex.JSONGet(args[0], path)
		if err != nil {
			return wrongtypeOrInternal(err), nil
		}
		if !found {
			return resp.NullBulk(), nil
		}
		return resp.BulkString(out), nil
	}
	return resp.Err(resp.ErrParse, "unknown command "+verb), nil
}
