package c

import "database/sql"

// main has no parameter 1, so nothing is tainted.
func main() {
	serve(nil, "SELECT 1")
}

func serve(db *sql.DB, q string) {
	db.Query(q)
}
