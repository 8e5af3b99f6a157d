package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type columnKind int

const (
	kindInt columnKind = iota
	kindText
	kindReal
)

type column struct {
	name   string
	kind   columnKind
	unique bool
}

// tableDef describes one table. Every table gets a surrogate id column;
// unique lists the natural key, if any.
type tableDef struct {
	name    string
	columns []column
	unique  []string
}

var schema = []tableDef{
	{
		name: TableApps,
		columns: []column{
			{"job_id", kindInt, true},
			{"year", kindInt, false},
			{"apk_file_name", kindText, false},
			{"sha256", kindText, true},
			{"package_name", kindText, false},
			{"version_name", kindText, false},
			{"num_classes", kindInt, false},
			{"num_methods", kindInt, false},
			{"num_units", kindInt, false},
			{"num_lib_classes", kindInt, false},
			{"num_app_classes", kindInt, false},
		},
	},
	{
		name: TableVulnerabilitiesPerCategory,
		columns: []column{
			{"job_id", kindInt, false},
			{"category", kindText, false},
			{"num_vulnerabilities", kindInt, false},
			{"num_lib_vulns", kindInt, false},
			{"library_percentage", kindReal, false},
		},
		unique: []string{"job_id", "category"},
	},
	{
		name: TableVulnerabilityCounts,
		columns: []column{
			{"job_id", kindInt, false},
			{"vuln_type", kindText, false},
			{"num_vulnerabilities", kindInt, false},
			{"num_lib_vulns", kindInt, false},
			{"library_percentage", kindReal, false},
		},
		unique: []string{"job_id", "vuln_type"},
	},
	{
		name: TablePerCategoryFindingCount,
		columns: []column{
			{"job_id", kindInt, false},
			{"category", kindText, false},
			{"vulnerability", kindText, false},
			{"count", kindInt, false},
		},
	},
	{
		name: TableCryptoStatistics,
		columns: []column{
			{"job_id", kindInt, false},
			{"total_ciphers", kindInt, false},
			{"num_md5", kindInt, false},
			{"num_rc4", kindInt, false},
			{"num_sha1", kindInt, false},
			{"num_sha256", kindInt, false},
			{"num_sha512", kindInt, false},
			{"num_aes", kindInt, false},
			{"num_dsa", kindInt, false},
			{"num_rsa", kindInt, false},
			{"num_blowfish", kindInt, false},
		},
		unique: []string{"job_id"},
	},
	{
		name: TableOutdatedAlgorithmStatistics,
		columns: []column{
			{"job_id", kindInt, false},
			{"algorithm", kindText, false},
			{"count", kindInt, false},
			{"library_ratio", kindReal, false},
		},
		unique: []string{"job_id", "algorithm"},
	},
	{
		name: TableLibraryFindingCount,
		columns: []column{
			{"library_name", kindText, false},
			{"vuln_type", kindText, false},
			{"num_findings", kindInt, false},
		},
		unique: []string{"library_name", "vuln_type"},
	},
	{
		name: TableLibraryCategoryFindingCount,
		columns: []column{
			{"library_name", kindText, false},
			{"category", kindText, false},
			{"num_findings", kindInt, false},
		},
		unique: []string{"library_name", "category"},
	},
	{
		name: TableLibraryCryptoCount,
		columns: []column{
			{"library_name", kindText, false},
			{"algorithm", kindText, false},
			{"num_findings", kindInt, false},
		},
		unique: []string{"library_name", "algorithm"},
	},
}

// dialect captures the SQL differences between the supported backends.
type dialect struct {
	name     string
	driver   string
	idColumn string
	intType  string
	textType string
	realType string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	sqliteDialect = dialect{
		name:     "sqlite",
		driver:   "sqlite3",
		idColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT",
		intType:  "INTEGER",
		textType: "TEXT",
		realType: "REAL",
	}
	postgresDialect = dialect{
		name:     "postgres",
		driver:   "postgres",
		idColumn: "id BIGSERIAL PRIMARY KEY",
		intType:  "BIGINT",
		textType: "TEXT",
		realType: "DOUBLE PRECISION",
		numbered: true,
	}
)

func (d dialect) columnType(k columnKind) string {
	switch k {
	case kindText:
		return d.textType
	case kindReal:
		return d.realType
	default:
		return d.intType
	}
}

// createTableSQL renders the CREATE TABLE statement for t.
func (d dialect) createTableSQL(t tableDef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\t%s", t.name, d.idColumn)
	for _, c := range t.columns {
		fmt.Fprintf(&b, ",\n\t%s %s", c.name, d.columnType(c.kind))
		if c.unique {
			b.WriteString(" UNIQUE")
		}
	}
	if len(t.unique) > 0 {
		fmt.Fprintf(&b, ",\n\tUNIQUE (%s)", strings.Join(t.unique, ", "))
	}
	b.WriteString("\n)")
	return b.String()
}

// insertSQL renders an insert that silently skips rows violating a
// uniqueness constraint.
func (d dialect) insertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func createSchema(ctx context.Context, db *sql.DB, d dialect) error {
	for _, t := range schema {
		if _, err := db.ExecContext(ctx, d.createTableSQL(t)); err != nil {
			return fmt.Errorf("create %s table: %w", t.name, err)
		}
	}
	return nil
}
