package a

import (
	"database/sql"
	"net/http"
)

func serve(db *sql.DB, r *http.Request) {
	q := r.URL.RawQuery
	db.Query(q) // want "tainted data reaches argument 1 of"

	db.Query("SELECT 1")

	byHost(db, r)
}

func byHost(db *sql.DB, r *http.Request) {
	db.QueryRowContext(r.Context(), r.Host) // want "tainted data reaches argument 2 of"
}
