package b

import (
	"database/sql"
	"net/http"
)

func serve(db *sql.DB, r *http.Request) {
	path := r.URL.Path
	if path == "" {
		path = "/"
	}

	lookup(db, path, 3)
	lookup(db, "static", 3)

	exec(db, path)
	exec(db, path)
}

func lookup(db *sql.DB, key string, depth int) {
	if depth > 0 {
		lookup(db, key, depth-1)
	}
	db.QueryRow(key) // want "tainted data reaches argument 1 of \\(\\*database/sql.DB\\).QueryRow"
}

func exec(db *sql.DB, stmt string) {
	db.Exec(stmt) // want "argument 1 of \\(\\*database/sql.DB\\).Exec"
}
