package worker

import (
	// Drivers for the watermill sql subscriber.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)
