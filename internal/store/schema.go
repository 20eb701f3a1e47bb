package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	name      string
	driver    string
	idCol     string // primary key column definition
	refCol    string // type of columns referencing an id
	valueType string // type of word.value
	least     string // two-argument minimum function
	// rebind rewrites ? placeholders.
	rebind func(query string) string
	// arg converts an encoded token into a query argument.
	arg func(value string) any
}

var sqliteDialect = dialect{
	name:      "sqlite",
	driver:    "sqlite",
	idCol:     "id INTEGER PRIMARY KEY",
	refCol:    "INTEGER",
	valueType: "TEXT",
	least:     "min",
	rebind:    func(q string) string { return q },
	arg:       func(v string) any { return v },
}

// PostgreSQL TEXT rejects NUL and invalid UTF-8, so words are stored as
// BYTEA.
var postgresDialect = dialect{
	name:      "postgres",
	driver:    "postgres",
	idCol:     "id BIGSERIAL PRIMARY KEY",
	refCol:    "BIGINT",
	valueType: "BYTEA",
	least:     "LEAST",
	rebind: func(q string) string {
		var b strings.Builder
		n := 0
		for _, r := range q {
			if r == '?' {
				n++
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(n))
				continue
			}
			b.WriteRune(r)
		}
		return b.String()
	},
	arg: func(v string) any { return []byte(v) },
}

const metaSchema = `CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// queries holds the statements for one dialect and order.
type queries struct {
	getWord              string
	insertWord           string
	getTransitionFrom    string
	insertTransitionFrom string
	addWeight            string
	getWeights           string
	countStates          string
	random               string
	randomStartingWith   string
	exportAll            string
	getOrder             string
	setOrder             string
}

func wordFK(i int) string {
	return fmt.Sprintf("word_%d_id", i+1)
}

func wordFKs(n int) []string {
	fks := make([]string, n)
	for i := range fks {
		fks[i] = wordFK(i)
	}
	return fks
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// schemaSQL returns the DDL for a chain of order n.
func schemaSQL(d dialect, n int) string {
	defs := make([]string, n)
	for i := range defs {
		defs[i] = fmt.Sprintf("%s %s NOT NULL REFERENCES word (id)", wordFK(i), d.refCol)
	}
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS word (
		%s,
		value %s NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS transition_from (
		%s,
		%s,
		UNIQUE (%s)
	);

	CREATE TABLE IF NOT EXISTS transition (
		transition_from_id %s NOT NULL REFERENCES transition_from (id),
		to_id              %s NOT NULL REFERENCES word (id),
		weight             BIGINT NOT NULL,
		PRIMARY KEY (transition_from_id, to_id),
		CHECK (weight > 0)
	);
	`, d.idCol, d.valueType, d.idCol, strings.Join(defs, ",\n\t\t"), strings.Join(wordFKs(n), ", "), d.refCol, d.refCol)
}

// stateJoins joins word aliases w1..wn onto transition_from tf.
func stateJoins(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, " JOIN word w%d ON w%d.id = tf.%s", i+1, i+1, wordFK(i))
	}
	return b.String()
}

func stateFields(n int) string {
	fields := make([]string, n)
	for i := range fields {
		fields[i] = fmt.Sprintf("w%d.value", i+1)
	}
	return strings.Join(fields, ", ")
}

func buildQueries(d dialect, n int) queries {
	fks := wordFKs(n)
	match := make([]string, n)
	valueMatch := make([]string, n)
	for i := range match {
		match[i] = fks[i] + " = ?"
		valueMatch[i] = fmt.Sprintf("w%d.value = ?", i+1)
	}

	q := queries{
		getWord:    `SELECT id FROM word WHERE value = ?`,
		insertWord: `INSERT INTO word (value) VALUES (?) ON CONFLICT (value) DO NOTHING`,
		getTransitionFrom: fmt.Sprintf(`SELECT id FROM transition_from WHERE %s`,
			strings.Join(match, " AND ")),
		insertTransitionFrom: fmt.Sprintf(`INSERT INTO transition_from (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING`,
			strings.Join(fks, ", "), placeholders(n), strings.Join(fks, ", ")),
		addWeight: fmt.Sprintf(`INSERT INTO transition (transition_from_id, to_id, weight) VALUES (?, ?, ?)
			ON CONFLICT (transition_from_id, to_id) DO UPDATE SET weight = %s(transition.weight + excluded.weight, %d)`,
			d.least, uint64(math.MaxUint32)),
		getWeights: fmt.Sprintf(`SELECT w.value, t.weight FROM transition_from tf%s
			JOIN transition t ON t.transition_from_id = tf.id
			JOIN word w ON w.id = t.to_id
			WHERE %s`, stateJoins(n), strings.Join(valueMatch, " AND ")),
		countStates: `SELECT COUNT(*) FROM transition_from`,
		// Offsets rather than ids: PostgreSQL sequences leave gaps.
		random: fmt.Sprintf(`SELECT %s FROM transition_from tf%s
			ORDER BY tf.id LIMIT 1 OFFSET ?`, stateFields(n), stateJoins(n)),
		randomStartingWith: fmt.Sprintf(`SELECT %s FROM transition_from tf%s
			WHERE w1.value = ?
			ORDER BY random() LIMIT 1`, stateFields(n), stateJoins(n)),
		exportAll: fmt.Sprintf(`SELECT %s, w.value, t.weight FROM transition_from tf%s
			JOIN transition t ON t.transition_from_id = tf.id
			JOIN word w ON w.id = t.to_id
			ORDER BY tf.id, w.value`, stateFields(n), stateJoins(n)),
		getOrder: `SELECT value FROM meta WHERE key = 'order'`,
		setOrder: `INSERT INTO meta (key, value) VALUES ('order', ?)`,
	}

	for _, p := range []*string{
		&q.getWord, &q.insertWord, &q.getTransitionFrom, &q.insertTransitionFrom,
		&q.addWeight, &q.getWeights, &q.countStates, &q.random, &q.randomStartingWith, &q.exportAll,
		&q.getOrder, &q.setOrder,
	} {
		*p = d.rebind(*p)
	}
	return q
}
