package target

import "github.com/pinggolf/pmo-smartsheet-migrator/internal/migerr"

func errKindOf(err error) (migerr.Kind, bool) {
	return migerr.KindOf(err)
}
