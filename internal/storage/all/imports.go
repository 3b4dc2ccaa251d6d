// Package all links every built-in storage backend into the binary. Import
// it for side effects:
//
//	import _ "foodsecurity/internal/storage/all"
//
// after which storage.New accepts the kinds "sqlite", "postgres", "mysql"
// and "mssql".
package all

import (
	_ "foodsecurity/internal/storage/mssql"
	_ "foodsecurity/internal/storage/mysql"
	_ "foodsecurity/internal/storage/postgres"
	_ "foodsecurity/internal/storage/sqlite"
)
