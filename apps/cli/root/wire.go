package root

import (
	"github.com/zenGate-Global/palmyra-taskhub/apps/cli/cmd/audit"
	"github.com/zenGate-Global/palmyra-taskhub/apps/cli/cmd/auth"
	"github.com/zenGate-Global/palmyra-taskhub/apps/cli/cmd/migrate"
	"github.com/zenGate-Global/palmyra-taskhub/apps/cli/cmd/superadmin"
)

func init() {
	Root().AddCommand(migrate.Command())
	Root().AddCommand(superadmin.Command())
	Root().AddCommand(auth.Command())
	Root().AddCommand(audit.Command())
}
