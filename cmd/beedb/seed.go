package main

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/go-faker/faker/v4"

	beedb "github.com/KilimcininKorOglu/beedb"
	"github.com/KilimcininKorOglu/beedb/internal/config"
)

// seedCmd fills a database with generated records.
func seedCmd(args []string) int {
	f := newDBFlags("seed")
	records := f.fs.Int("records", 1000, "Number of records to generate")
	batch := f.fs.Int("batch", 1000, "Records per commit")
	if help, err := f.parse(args); err != nil {
		return 1
	} else if help {
		printSeedUsage(stdout)
		return 0
	}
	if *records <= 0 || *batch <= 0 {
		printError("-records and -batch must be positive")
		return 1
	}

	startTime := time.Now()
	added := 0
	code := withWritableDB(f, func(db *beedb.DB, kf keyFormat) error {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		for i := 0; i < *records; i++ {
			key, err := kf.parse(seedKey(kf, rng))
			if err != nil {
				return err
			}
			if ok, err := db.Has(key); err != nil {
				return err
			} else if !ok {
				added++
			}
			if err := db.Set(key, []byte(faker.Sentence())); err != nil {
				return err
			}
			if (i+1)%*batch == 0 {
				if err := db.Commit(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if code != 0 {
		return code
	}

	printOK("wrote %d records (%d new keys) in %v", *records, added, time.Since(startTime).Round(time.Millisecond))
	return 0
}

// seedKey generates key text that fits kf.
func seedKey(kf keyFormat, rng *rand.Rand) string {
	switch kf.keyType {
	case config.KeyTypeInt64:
		return strconv.FormatInt(rng.Int63n(1_000_000_000)-500_000_000, 10)
	case config.KeyTypeFloat64:
		return strconv.FormatFloat(rng.NormFloat64()*1000, 'g', -1, 64)
	}

	limit := kf.size
	if kf.keyType == config.KeyTypeString {
		limit--
	}
	word := faker.Word() + faker.Word()
	if len(word) > limit {
		word = word[:limit]
	}
	return word
}
