package lego

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	return setupTestDBWithMaUn(t, MsgpackMaUn)
}

func setupTestDBWithMaUn(t *testing.T, maUn MarshalUnmarshaler) (*DB, func()) {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "lego_test_*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbPath := tmpfile.Name()
	tmpfile.Close()

	db, err := OpenDB(maUn, dbPath, 0600, nil)
	if err != nil {
		os.Remove(dbPath)
		t.Fatal(err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func stringFriends() Collection {
	return Collection{
		{"name": "Sam", "gender": "male", "fruit": "potato"},
		{"name": "Sally", "gender": "female", "fruit": "apple"},
		{"name": "Bill", "gender": "male", "fruit": "apple"},
		{"name": "Sharon", "gender": "female", "fruit": "potato"},
	}
}

func TestStorage_SaveLoad(t *testing.T) {
	for name, maUn := range map[string]MarshalUnmarshaler{"msgpack": MsgpackMaUn, "json": JsonMaUn, "gob": GobMaUn} {
		t.Run(name, func(t *testing.T) {
			db, cleanup := setupTestDBWithMaUn(t, maUn)
			defer cleanup()

			err := db.Update(func(tx *Tx) error {
				return tx.SaveCollection("friends", stringFriends())
			})
			if err != nil {
				t.Fatal(err)
			}

			err = db.View(func(tx *Tx) error {
				got, err := tx.LoadCollection("friends")
				if err != nil {
					return err
				}
				if diff := cmp.Diff(stringFriends(), got); diff != "" {
					t.Errorf("unexpected collection (-want +got):\n%s", diff)
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestStorage_SaveReplaces(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Update(func(tx *Tx) error {
		if err := tx.SaveCollection("friends", stringFriends()); err != nil {
			return err
		}
		return tx.SaveCollection("friends", Collection{{"name": "Brad"}})
	})
	if err != nil {
		t.Fatal(err)
	}
	err = db.View(func(tx *Tx) error {
		got, err := tx.LoadCollection("friends")
		if err != nil {
			return err
		}
		if diff := cmp.Diff(Collection{{"name": "Brad"}}, got); diff != "" {
			t.Errorf("unexpected collection (-want +got):\n%s", diff)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStorage_AppendKeepsOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	all := stringFriends()
	for _, r := range all {
		err := db.Update(func(tx *Tx) error {
			return tx.AppendRecords("friends", r)
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	err := db.View(func(tx *Tx) error {
		got, err := tx.LoadCollection("friends")
		if err != nil {
			return err
		}
		if diff := cmp.Diff(all, got); diff != "" {
			t.Errorf("unexpected collection (-want +got):\n%s", diff)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStorage_Query(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Update(func(tx *Tx) error { return tx.SaveCollection("friends", stringFriends()) }); err != nil {
		t.Fatal(err)
	}
	err := db.View(func(tx *Tx) error {
		got, err := tx.Query("friends",
			Select("name"),
			SortBy("name", Asc),
			Or(FilterIn("fruit", "apple"), FilterIn("gender", "female")),
		)
		if err != nil {
			return err
		}
		want := Collection{{"name": "Bill"}, {"name": "Sally"}, {"name": "Sharon"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("unexpected result (-want +got):\n%s", diff)
		}

		stored, err := tx.LoadCollection("friends")
		if err != nil {
			return err
		}
		if diff := cmp.Diff(stringFriends(), stored); diff != "" {
			t.Errorf("query modified the stored collection (-want +got):\n%s", diff)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStorage_QueryNumericFields(t *testing.T) {
	coll := Collection{
		{"name": "A", "age": 5},
		{"name": "B", "age": 3},
		{"name": "C", "age": 5.5},
		{"name": "D", "age": uint8(5)},
	}
	for name, maUn := range map[string]MarshalUnmarshaler{"msgpack": MsgpackMaUn, "json": JsonMaUn, "gob": GobMaUn} {
		t.Run(name, func(t *testing.T) {
			db, cleanup := setupTestDBWithMaUn(t, maUn)
			defer cleanup()

			if err := db.Update(func(tx *Tx) error { return tx.SaveCollection("ages", coll) }); err != nil {
				t.Fatal(err)
			}
			err := db.View(func(tx *Tx) error {
				direct := names(t, mustQuery(t, coll, FilterIn("age", 5)))
				got, err := tx.Query("ages", FilterIn("age", 5))
				if err != nil {
					return err
				}
				if diff := cmp.Diff(direct, names(t, got)); diff != "" {
					t.Errorf("stored and in-memory results differ (-direct +stored):\n%s", diff)
				}
				if diff := cmp.Diff([]string{"A", "D"}, names(t, got)); diff != "" {
					t.Errorf("unexpected names (-want +got):\n%s", diff)
				}

				got, err = tx.Query("ages", SortBy("age", Desc))
				if err != nil {
					return err
				}
				if diff := cmp.Diff([]string{"C", "A", "D", "B"}, names(t, got)); diff != "" {
					t.Errorf("unexpected order (-want +got):\n%s", diff)
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestStorage_DeleteAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.View(func(tx *Tx) error {
		names, err := tx.Collections()
		if err != nil {
			return err
		}
		if len(names) != 0 {
			t.Errorf("expected no collections, got %v", names)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = db.Update(func(tx *Tx) error {
		for _, name := range []string{"b", "a", "c"} {
			if err := tx.SaveCollection(name, stringFriends()); err != nil {
				return err
			}
		}
		return tx.DeleteCollection("c")
	})
	if err != nil {
		t.Fatal(err)
	}

	err = db.Update(func(tx *Tx) error {
		names, err := tx.Collections()
		if err != nil {
			return err
		}
		if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
			t.Errorf("unexpected collections (-want +got):\n%s", diff)
		}
		if err := tx.DeleteCollection("c"); err == nil {
			t.Error("expected error deleting a missing collection")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStorage_Errors(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.View(func(tx *Tx) error {
		if _, err := tx.LoadCollection("missing"); err == nil || err.Error() != ErrCollectionNotFound("missing").Error() {
			t.Errorf("expected not found error, got %v", err)
		}
		if _, err := tx.Query("missing", Limit(1)); err == nil {
			t.Error("expected error querying a missing collection")
		}
		if err := tx.SaveCollection("friends", stringFriends()); !errors.Is(err, ErrTxNotWritable) {
			t.Errorf("expected ErrTxNotWritable, got %v", err)
		}
		if _, err := tx.LoadCollection(""); !errors.Is(err, ErrEmptyCollectionName) {
			t.Errorf("expected ErrEmptyCollectionName, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestStorage_FormatterErrorRollsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	errBoom := errors.New("boom")
	err := db.Update(func(tx *Tx) error {
		if err := tx.SaveCollection("friends", stringFriends()); err != nil {
			return err
		}
		_, err := tx.Query("friends", Format("name", func(any) (any, error) { return nil, errBoom }))
		return err
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected formatter error, got %v", err)
	}
	err = db.View(func(tx *Tx) error {
		names, err := tx.Collections()
		if err != nil {
			return err
		}
		if len(names) != 0 {
			t.Errorf("expected rolled back update, found %v", names)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTx_ManualCommit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	tx, err := db.Begin(true)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := tx.SaveCollection("friends", stringFriends()); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx, err = db.Begin(false)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	got, err := tx.LoadCollection("friends")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 records, got %d", len(got))
	}
}

func TestTx_ManagedCannotCommit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := db.Update(func(tx *Tx) error {
		if err := tx.Commit(); !errors.Is(err, ErrManagedTx) {
			t.Errorf("expected ErrManagedTx from Commit, got %v", err)
		}
		if err := tx.Rollback(); !errors.Is(err, ErrManagedTx) {
			t.Errorf("expected ErrManagedTx from Rollback, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
