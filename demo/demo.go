// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Command demo fills a small database and queries it with sqlfmt templates.
// It uses an in-memory SQLite database unless a YAML configuration is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/canonical/sqlfmt"
)

type Person struct {
	Name     string
	Height   int
	HomeTown string
}

type Place struct {
	Name       string
	Population int
}

func open(configPath string, logger *slog.Logger) (*sqlfmt.DB, error) {
	cfg := sqlfmt.Config{Driver: "sqlite", Database: "file:demo?mode=memory&cache=shared"}
	if configPath != "" {
		var err error
		cfg, err = sqlfmt.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	return sqlfmt.Open(cfg, sqlfmt.WithLogger(logger))
}

func example(ctx context.Context, db *sqlfmt.DB) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE people (
			name text,
			height_cm integer,
			home_town text
		)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		CREATE TABLE location (
			town_name text,
			population integer
		)`)
	if err != nil {
		return err
	}

	var people = []Person{{"Jim", 150, "Kabul"}, {"Saba", 162, "Berlin"}, {"Dave", 169, "Brasília"}, {"Sophie", 174, "Berlin"}, {"Kiri", 168, "Cape Town"}}
	var places = []Place{{"Kabul", 13000000}, {"Berlin", 3677472}, {"Brasília", 3039444}, {"Cape Town", 4710000}}

	// Insert the people and places
	for _, p := range people {
		_, err := db.Exec(ctx, "INSERT INTO [people]", sqlfmt.Pairs{
			{Key: "name", Value: p.Name},
			{Key: "height_cm%i", Value: p.Height},
			{Key: "home_town", Value: p.HomeTown},
		})
		if err != nil {
			return err
		}
	}
	for _, p := range places {
		_, err := db.Exec(ctx, "INSERT INTO [location]", sqlfmt.Pairs{
			{Key: "town_name", Value: p.Name},
			{Key: "population%i", Value: p.Population},
		})
		if err != nil {
			return err
		}
	}

	// Find people taller than Jim
	jim := people[0]
	taller, err := db.FetchAll(ctx, "SELECT name FROM people WHERE height_cm > %i", jim.Height)
	if err != nil {
		return err
	}
	for _, p := range taller {
		fmt.Printf("%s is taller than %s.\n", p["name"], jim.Name)
	}

	// Find cities with people taller than Jim, optionally only large ones
	for _, onlyLarge := range []bool{false, true} {
		cities, err := db.FetchAll(ctx, `
			SELECT DISTINCT l.town_name, l.population
			FROM people AS p, location AS l
			WHERE p.home_town = l.town_name
			AND p.height_cm > %i`, jim.Height,
			"%if", onlyLarge, "AND l.population > %i", 4000000, "%end",
			"ORDER BY l.town_name",
		)
		if err != nil {
			return err
		}
		fmt.Printf("Cities with people taller than Jim (only large: %t): %v\n", onlyLarge, cities)
	}
	return nil
}

func run(configPath string, logger *slog.Logger) error {
	db, err := open(configPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return example(context.Background(), db)
}

func main() {
	configPath := flag.String("config", "", "YAML database configuration")
	verbose := flag.Bool("v", false, "log every query")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(*configPath, logger); err != nil {
		logger.Error("demo failed", "err", err)
		os.Exit(1)
	}
}
