package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rawbytedev/relo"
)

func main() {
	go func() {
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()
	f, err := os.Create("mem.prof")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	runtime.MemProfileRate = 1

	type entry struct {
		Key  relo.String
		Hits relo.Vector[uint32]
	}
	type table struct {
		Name    relo.String
		Entries relo.Vector[entry]
		Main    relo.UniquePtr[entry]
		Top     *entry
	}

	t := &table{
		Name: relo.NewString("profile table with a long name"),
		Entries: relo.NewVector(
			entry{Key: relo.NewString("alpha"), Hits: relo.NewVector[uint32](1, 2, 3)},
			entry{Key: relo.NewString("beta"), Hits: relo.NewVector[uint32](4, 5)},
		),
		Main: relo.MakeUnique(entry{Key: relo.NewString("gamma"), Hits: relo.NewVector[uint32](6)}),
	}
	t.Top = t.Main.Get()

	buf := relo.NewBufSize(1 << 12)
	scratch := []byte(nil)
	for i := 0; i < 10000; i++ {
		buf.Reset()
		if err := relo.SerializeTo(buf, t); err != nil {
			log.Fatal(err)
		}
		scratch = append(scratch[:0], buf.Bytes()...)
		if _, err := relo.Deserialize[table](scratch); err != nil {
			log.Fatal(err)
		}
	}
	pprof.WriteHeapProfile(f)
	time.Sleep(5 * time.Minute)
}
