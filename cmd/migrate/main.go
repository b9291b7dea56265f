package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"leadgate/internal/config"
	"leadgate/internal/db"

	"github.com/jmoiron/sqlx"
)

const upMarker = "-- +migrate Up"
const downMarker = "-- +migrate Down"

func main() {
	down := flag.Bool("down", false, "roll back the most recently applied migration")
	flag.Parse()

	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		log.Fatalf("failed to ensure schema_migrations: %v", err)
	}

	files, err := filepath.Glob("migrations/*.sql")
	if err != nil {
		log.Fatalf("failed to read migrations: %v", err)
	}
	sort.Strings(files)

	if *down {
		rollbackLatest(database, files)
		return
	}
	applyPending(database, files)
}

func applyPending(database *sqlx.DB, files []string) {
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatalf("failed to read migration state: %v", err)
		}
		if exists {
			continue
		}
		up, _, err := readSections(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", filename, err)
		}
		if err := runStatements(database, up); err != nil {
			log.Fatalf("failed to apply %s: %v", filename, err)
		}
		if _, err := database.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			log.Fatalf("failed to record migration %s: %v", filename, err)
		}
		fmt.Printf("applied %s\n", filename)
	}
}

func rollbackLatest(database *sqlx.DB, files []string) {
	var filename string
	err := database.Get(&filename, `SELECT filename FROM schema_migrations ORDER BY applied_at DESC, filename DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		fmt.Println("nothing to roll back")
		return
	}
	if err != nil {
		log.Fatalf("failed to read migration state: %v", err)
	}
	path := ""
	for _, file := range files {
		if filepath.Base(file) == filename {
			path = file
			break
		}
	}
	if path == "" {
		log.Fatalf("migration file for %s not found", filename)
	}
	_, downSQL, err := readSections(path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", filename, err)
	}
	if strings.TrimSpace(downSQL) == "" {
		log.Fatalf("%s has no down section", filename)
	}
	if err := runStatements(database, downSQL); err != nil {
		log.Fatalf("failed to roll back %s: %v", filename, err)
	}
	if _, err := database.Exec(`DELETE FROM schema_migrations WHERE filename = $1`, filename); err != nil {
		log.Fatalf("failed to unrecord migration %s: %v", filename, err)
	}
	fmt.Printf("rolled back %s\n", filename)
}

func readSections(path string) (up, down string, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	text := string(content)
	if idx := strings.Index(text, downMarker); idx >= 0 {
		down = text[idx+len(downMarker):]
		text = text[:idx]
	}
	up = strings.TrimPrefix(text, upMarker)
	return up, down, nil
}

func runStatements(database *sqlx.DB, sqlText string) error {
	for _, stmt := range splitSQL(sqlText) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := database.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
