package zotero

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// Reader reads items from a Zotero SQLite database. The database is opened
// immutable so reads never contend with a running Zotero instance.
type Reader struct {
	db   *sql.DB
	path string
}

// NewReader opens the Zotero database at path read-only.
// Returns an error when the database file does not exist; callers treat
// that as the source being unavailable.
func NewReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("zotero database not found: %s", path)
	}

	dsn := "file:" + path + "?mode=ro&immutable=1"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening zotero database: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &Reader{db: db, path: path}, nil
}

// Close closes the underlying connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// ListItems returns all regular items (attachments, notes, and trashed
// items excluded) with their fields, creators, attachments, collection
// paths, and tags.
func (r *Reader) ListItems() ([]Item, error) {
	collectionPaths, err := r.buildCollectionPaths()
	if err != nil {
		return nil, fmt.Errorf("reading collections: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT i.itemID, i.key, it.typeName
		FROM items i
		JOIN itemTypes it ON i.itemTypeID = it.itemTypeID
		LEFT JOIN deletedItems di ON i.itemID = di.itemID
		WHERE di.itemID IS NULL
		  AND it.typeName NOT IN ('attachment', 'note')`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	type itemHead struct {
		id       int
		key      string
		itemType string
	}
	var heads []itemHead
	for rows.Next() {
		var h itemHead
		if err := rows.Scan(&h.id, &h.key, &h.itemType); err != nil {
			return nil, err
		}
		heads = append(heads, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(heads))
	for _, h := range heads {
		item, err := r.buildItem(h.id, h.key, h.itemType, collectionPaths)
		if err != nil {
			return nil, fmt.Errorf("reading item %s: %w", h.key, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// GetItemByKey returns a single item by its Zotero key, or nil when the
// item does not exist or is trashed.
func (r *Reader) GetItemByKey(key string) (*Item, error) {
	var itemID int
	var itemType string
	err := r.db.QueryRow(`
		SELECT i.itemID, it.typeName
		FROM items i
		JOIN itemTypes it ON i.itemTypeID = it.itemTypeID
		LEFT JOIN deletedItems di ON i.itemID = di.itemID
		WHERE i.key = ? AND di.itemID IS NULL`, key).Scan(&itemID, &itemType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	collectionPaths, err := r.buildCollectionPaths()
	if err != nil {
		return nil, err
	}
	item, err := r.buildItem(itemID, key, itemType, collectionPaths)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListCollections returns all collection names, sorted.
func (r *Reader) ListCollections() ([]string, error) {
	rows, err := r.db.Query("SELECT collectionName FROM collections ORDER BY collectionName")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

// ListTags returns all distinct tag names, sorted.
func (r *Reader) ListTags() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT name FROM tags ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (r *Reader) buildItem(itemID int, key, itemType string, collectionPaths map[int]string) (Item, error) {
	fields, err := r.itemFields(itemID)
	if err != nil {
		return Item{}, err
	}
	creators, err := r.itemCreators(itemID)
	if err != nil {
		return Item{}, err
	}
	attachments, err := r.itemAttachments(itemID)
	if err != nil {
		return Item{}, err
	}
	collections, err := r.itemCollections(itemID, collectionPaths)
	if err != nil {
		return Item{}, err
	}
	tags, err := r.itemTags(itemID)
	if err != nil {
		return Item{}, err
	}

	return Item{
		ItemID:      itemID,
		Key:         key,
		ItemType:    itemType,
		Title:       fields["title"],
		Date:        fields["date"],
		Journal:     fields["publicationTitle"],
		Volume:      fields["volume"],
		Issue:       fields["issue"],
		Pages:       fields["pages"],
		DOI:         fields["DOI"],
		URL:         fields["url"],
		Abstract:    fields["abstractNote"],
		Publisher:   fields["publisher"],
		BookTitle:   fields["bookTitle"],
		Creators:    creators,
		Attachments: attachments,
		Collections: collections,
		Tags:        tags,
	}, nil
}

func (r *Reader) itemFields(itemID int) (map[string]string, error) {
	rows, err := r.db.Query(`
		SELECT f.fieldName, iv.value
		FROM itemDataValues iv
		JOIN itemData id ON iv.valueID = id.valueID
		JOIN fields f ON id.fieldID = f.fieldID
		WHERE id.itemID = ?`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		fields[name] = value
	}
	return fields, rows.Err()
}

func (r *Reader) itemCreators(itemID int) ([]Creator, error) {
	rows, err := r.db.Query(`
		SELECT c.firstName, c.lastName, ct.creatorType
		FROM creators c
		JOIN itemCreators ic ON c.creatorID = ic.creatorID
		JOIN creatorTypes ct ON ic.creatorTypeID = ct.creatorTypeID
		WHERE ic.itemID = ?
		ORDER BY ic.orderIndex`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creators []Creator
	for rows.Next() {
		var first, last sql.NullString
		var role string
		if err := rows.Scan(&first, &last, &role); err != nil {
			return nil, err
		}
		creators = append(creators, Creator{
			First: first.String,
			Last:  last.String,
			Role:  role,
		})
	}
	return creators, rows.Err()
}

func (r *Reader) itemAttachments(itemID int) ([]Attachment, error) {
	rows, err := r.db.Query(`
		SELECT ia.path, ia.contentType, i.key
		FROM itemAttachments ia
		JOIN items i ON ia.itemID = i.itemID
		WHERE ia.parentItemID = ?`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var path, contentType, key sql.NullString
		if err := rows.Scan(&path, &contentType, &key); err != nil {
			return nil, err
		}
		p := path.String
		// Zotero stores managed attachment paths with a scheme prefix.
		p = strings.TrimPrefix(p, "storage:")
		p = strings.TrimPrefix(p, "attachments:")
		attachments = append(attachments, Attachment{
			Path:        p,
			ContentType: contentType.String,
			Key:         key.String,
		})
	}
	return attachments, rows.Err()
}

// buildCollectionPaths maps collection ids to their nested path
// ("Parent/Child") by walking parent links.
func (r *Reader) buildCollectionPaths() (map[int]string, error) {
	rows, err := r.db.Query("SELECT collectionID, collectionName, parentCollectionID FROM collections")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type node struct {
		name   string
		parent int // 0 = root
	}
	nodes := make(map[int]node)
	for rows.Next() {
		var id int
		var name string
		var parent sql.NullInt64
		if err := rows.Scan(&id, &name, &parent); err != nil {
			return nil, err
		}
		n := node{name: name}
		if parent.Valid {
			n.parent = int(parent.Int64)
		}
		nodes[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	paths := make(map[int]string, len(nodes))
	var pathOf func(id int, depth int) string
	pathOf = func(id, depth int) string {
		n, ok := nodes[id]
		if !ok || depth > len(nodes) {
			return ""
		}
		if n.parent == 0 {
			return n.name
		}
		parentPath := pathOf(n.parent, depth+1)
		if parentPath == "" {
			return n.name
		}
		return parentPath + "/" + n.name
	}
	for id := range nodes {
		paths[id] = pathOf(id, 0)
	}
	return paths, nil
}

func (r *Reader) itemCollections(itemID int, collectionPaths map[int]string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT ci.collectionID
		FROM collectionItems ci
		WHERE ci.itemID = ?`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []string
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if path, ok := collectionPaths[id]; ok {
			collections = append(collections, path)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(collections)
	return collections, nil
}

func (r *Reader) itemTags(itemID int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT t.name
		FROM tags t
		JOIN itemTags it ON t.tagID = it.tagID
		WHERE it.itemID = ?`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	sort.Strings(tags)
	return tags, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
