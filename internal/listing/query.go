package listing

import (
	"strconv"
	"strings"
)

// Table holds listings written by the crawler.
const Table = "jobs"

var searchColumns = []string{"title", "skills", "general_requirements", "specific_requirements", "responsibilities"}

type dialect struct {
	like        string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{
		like:        "ILIKE",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	// LIKE is case-insensitive for ASCII in SQLite.
	sqliteDialect = dialect{
		like:        "LIKE",
		placeholder: func(int) string { return "?" },
	}
)

func fetchQuery() string {
	return "SELECT * FROM " + Table + " ORDER BY created_at DESC"
}

func (d dialect) searchQuery(keywords []string, limit int) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	b.WriteString("SELECT * FROM " + Table)

	conditions := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}

		columns := make([]string, 0, len(searchColumns))
		for _, column := range searchColumns {
			args = append(args, "%"+keyword+"%")
			columns = append(columns, column+" "+d.like+" "+d.placeholder(len(args)))
		}
		conditions = append(conditions, "("+strings.Join(columns, " OR ")+")")
	}

	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " OR "))
	}

	b.WriteString(" ORDER BY created_at DESC")

	if limit > 0 {
		args = append(args, limit)
		b.WriteString(" LIMIT " + d.placeholder(len(args)))
	}

	return b.String(), args
}
