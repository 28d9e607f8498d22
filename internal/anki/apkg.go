package anki

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/flashpix/internal"
)

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// apkgWriter builds an Anki package (.apkg): a zip holding a sqlite
// collection, a media map and the numbered media files
type apkgWriter struct {
	deckName  string
	modelName string
	fields    []string
	notes     []exportNote
	media     map[string]string

	deckID  int64
	modelID int64
}

func (w *apkgWriter) write(outputPath string) error {
	now := time.Now().UnixMilli()
	w.deckID = now
	w.modelID = now + 1

	tempDir, err := os.MkdirTemp("", "flashpix_export_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := w.writeMedia(tempDir); err != nil {
		return fmt.Errorf("failed to copy media files: %w", err)
	}

	if err := w.createDatabase(filepath.Join(tempDir, "collection.anki2")); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := createZipPackage(tempDir, outputPath); err != nil {
		return fmt.Errorf("failed to create zip package: %w", err)
	}

	return nil
}

// writeMedia copies media files under numeric names and writes the "media" map
func (w *apkgWriter) writeMedia(tempDir string) error {
	names := make([]string, 0, len(w.media))
	for name := range w.media {
		names = append(names, name)
	}
	sort.Strings(names)

	mapping := make(map[string]string, len(names))
	for i, name := range names {
		num := fmt.Sprintf("%d", i)
		if err := copyFile(w.media[name], filepath.Join(tempDir, num)); err != nil {
			return fmt.Errorf("failed to copy %s: %w", name, err)
		}
		mapping[num] = name
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tempDir, "media"), data, 0644)
}

func (w *apkgWriter) createDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, query := range schema {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if err := w.insertCollection(db); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	if err := w.insertNotesAndCards(db); err != nil {
		return fmt.Errorf("failed to insert notes and cards: %w", err)
	}

	return nil
}

var schema = []string{
	`CREATE TABLE col (
		id integer PRIMARY KEY, crt integer NOT NULL, mod integer NOT NULL,
		scm integer NOT NULL, ver integer NOT NULL, dty integer NOT NULL,
		usn integer NOT NULL, ls integer NOT NULL, conf text NOT NULL,
		models text NOT NULL, decks text NOT NULL, dconf text NOT NULL, tags text NOT NULL
	)`,
	`CREATE TABLE notes (
		id integer PRIMARY KEY, guid text NOT NULL, mid integer NOT NULL,
		mod integer NOT NULL, usn integer NOT NULL, tags text NOT NULL,
		flds text NOT NULL, sfld text NOT NULL, csum integer NOT NULL,
		flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE cards (
		id integer PRIMARY KEY, nid integer NOT NULL, did integer NOT NULL,
		ord integer NOT NULL, mod integer NOT NULL, usn integer NOT NULL,
		type integer NOT NULL, queue integer NOT NULL, due integer NOT NULL,
		ivl integer NOT NULL, factor integer NOT NULL, reps integer NOT NULL,
		lapses integer NOT NULL, left integer NOT NULL, odue integer NOT NULL,
		odid integer NOT NULL, flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE revlog (
		id integer PRIMARY KEY, cid integer NOT NULL, usn integer NOT NULL,
		ease integer NOT NULL, ivl integer NOT NULL, lastIvl integer NOT NULL,
		factor integer NOT NULL, time integer NOT NULL, type integer NOT NULL
	)`,
	`CREATE TABLE graves (usn integer NOT NULL, oid integer NOT NULL, type integer NOT NULL)`,
	`CREATE INDEX ix_notes_csum ON notes (csum)`,
	`CREATE INDEX ix_notes_usn ON notes (usn)`,
	`CREATE INDEX ix_cards_usn ON cards (usn)`,
	`CREATE INDEX ix_cards_nid ON cards (nid)`,
	`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
	`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
}

func deckConfig(id int64, name, desc string, now int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"name":             name,
		"mod":              now,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

func (w *apkgWriter) insertCollection(db *sql.DB) error {
	now := time.Now().Unix()

	decks := map[string]interface{}{
		"1":                         deckConfig(1, "Default", "", now),
		fmt.Sprintf("%d", w.deckID): deckConfig(w.deckID, w.deckName, "Illustrated cards created by flashpix", now),
	}
	models := map[string]interface{}{
		fmt.Sprintf("%d", w.modelID): w.noteType(now),
	}
	conf := map[string]interface{}{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      fmt.Sprintf("%d", w.modelID),
		"dayLearnFirst": false,
	}
	dconf := map[string]interface{}{
		"1": map[string]interface{}{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]interface{}{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]interface{}{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]interface{}{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}

	blobs := make([]string, 0, 4)
	for _, v := range []interface{}{conf, models, decks, dconf} {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		blobs = append(blobs, string(data))
	}

	_, err := db.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1, now, now*1000, now*1000,
		11, // schema version
		0, 0, 0,
		blobs[0], blobs[1], blobs[2], blobs[3],
		"{}",
	)
	return err
}

// noteType describes a single-template note type over w.fields
func (w *apkgWriter) noteType(now int64) map[string]interface{} {
	flds := make([]map[string]interface{}, 0, len(w.fields))
	for i, name := range w.fields {
		flds = append(flds, map[string]interface{}{
			"name":   name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   20,
			"media":  []string{},
		})
	}

	return map[string]interface{}{
		"id":        w.modelID,
		"name":      w.modelName + " (flashpix)",
		"type":      0,
		"mod":       now,
		"usn":       -1,
		"sortf":     0,
		"did":       w.deckID,
		"req":       [][]interface{}{{0, "all", []int{0}}},
		"vers":      []int{},
		"tags":      []string{},
		"latexPre":  "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}",
		"latexPost": `\end{document}`,
		"flds":      flds,
		"tmpls": []map[string]interface{}{
			{
				"name":  "Card 1",
				"ord":   0,
				"qfmt":  w.frontTemplate(),
				"afmt":  w.backTemplate(),
				"did":   nil,
				"bqfmt": "",
				"bafmt": "",
			},
		},
		"css": cardCSS,
	}
}

func (w *apkgWriter) frontTemplate() string {
	return fmt.Sprintf(`<div class="front">{{%s}}</div>`, w.fields[0])
}

func (w *apkgWriter) backTemplate() string {
	var b strings.Builder
	b.WriteString("{{FrontSide}}\n\n<hr id=\"answer\">\n\n<div class=\"back\">\n")
	for _, name := range w.fields[1:] {
		fmt.Fprintf(&b, "{{#%[1]s}}<div class=\"field\">{{%[1]s}}</div>{{/%[1]s}}\n", name)
	}
	b.WriteString("</div>")
	return b.String()
}

const cardCSS = `.card {
  font-family: Arial, sans-serif;
  font-size: 20px;
  text-align: center;
  color: #333;
  background-color: white;
}

.front {
  font-size: 28px;
  font-weight: bold;
  padding: 20px;
}

.field {
  margin: 15px 0;
}

.field img, .flashpix-card-image {
  max-width: 400px;
  height: auto;
  border-radius: 8px;
}

hr#answer {
  margin: 30px 0;
  border: 0;
  border-top: 1px solid #ecf0f1;
}`

func (w *apkgWriter) insertNotesAndCards(db *sql.DB) error {
	now := time.Now().Unix()

	for i, n := range w.notes {
		values := make([]string, len(w.fields))
		for j, f := range w.fields {
			values[j] = n.fields[f]
		}

		_, err := db.Exec(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.id,
			internal.GenerateCardID(n.front), // guid
			w.modelID,
			now,
			-1, // usn
			formatTags(n.tags),
			strings.Join(values, "\x1f"),
			n.front, // sort field
			checksum(n.front),
			0,
			"",
		)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}

		_, err = db.Exec(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.id+1,   // id
			n.id,     // nid
			w.deckID, // did
			0,        // ord
			now,      // mod
			-1,       // usn
			0,        // type (new)
			0,        // queue (new)
			i+1,      // due, the position among new cards
			0, 0, 0, 0, 0, 0, 0, 0,
			"",
		)
		if err != nil {
			return fmt.Errorf("failed to insert card: %w", err)
		}
	}

	return nil
}

// checksum is Anki's duplicate check value: the first 8 hex digits of the
// sha1 of the stripped sort field
func checksum(field string) int64 {
	sum := sha1.Sum([]byte(strings.TrimSpace(htmlTag.ReplaceAllString(field, ""))))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

// formatTags renders tags the way Anki stores them: space separated with
// surrounding spaces
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func createZipPackage(tempDir, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)

	err = filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		relPath, err := filepath.Rel(tempDir, path)
		if err != nil {
			return err
		}

		writer, err := archive.Create(relPath)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
	if err != nil {
		archive.Close()
		return err
	}
	return archive.Close()
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
