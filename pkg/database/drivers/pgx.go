package drivers

import (
	// Registers "pgx" for catalogs kept in PostgreSQL.
	_ "github.com/jackc/pgx/v5/stdlib"
)
