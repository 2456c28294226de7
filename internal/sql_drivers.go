package internal

import (
	// Drivers for the watermill sql publisher and the riverqueue publisher.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)
