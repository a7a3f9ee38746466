// rmstats loads synthetic variable-length records into a slotted-page file
// and reports utilization, next to what fixed-size slots would achieve.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"toydb/internal/pf"
	"toydb/internal/rm"
)

func makeStudentRecord(recno, length int) []byte {
	buf := fmt.Appendf(nil, "id:%d,name:Student_%d,grade:%d,", recno, recno, recno%100)
	for len(buf)+20 < length {
		buf = fmt.Appendf(buf, "c%d,", rand.Intn(1000))
	}
	return buf
}

func staticUtil(recSize int) float64 {
	num := pf.PageSize / recSize
	return 100 * float64(num*recSize) / float64(pf.PageSize)
}

func main() {
	file := flag.String("file", "students.rm", "record file name")
	count := flag.Int("n", 5000, "number of records to insert")
	buffers := flag.Int("buffers", 50, "buffer pool capacity in pages")
	flag.Parse()

	pool := pf.NewPool(*buffers, pf.DiskFS{Dir: "."})

	os.Remove(*file)
	if err := rm.Create(pool, *file); err != nil {
		log.Fatalf("rmstats: create: %v", err)
	}
	fh, err := rm.Open(pool, *file)
	if err != nil {
		log.Fatalf("rmstats: open: %v", err)
	}

	fmt.Printf("Inserting %d records...\n", *count)
	for i := 0; i < *count; i++ {
		data := makeStudentRecord(i, 16+rand.Intn(497))
		if _, err := fh.Insert(rm.Record{Length: len(data), Data: data}); err != nil {
			log.Fatalf("rmstats: insert %d: %v", i, err)
		}
	}

	st, err := fh.ComputeFileStats()
	if err != nil {
		log.Fatalf("rmstats: stats: %v", err)
	}
	if err := fh.Close(); err != nil {
		log.Fatalf("rmstats: close: %v", err)
	}

	fmt.Printf("Pages used: %d\n", st.Pages)
	fmt.Printf("Total payload bytes: %d\n", st.PayloadBytes)
	fmt.Printf("Total slots: %d\n", st.Slots)
	fmt.Printf("Total deleted slots: %d\n", st.DeletedSlots)
	fmt.Printf("Slotted-page utilization: %.2f%%\n", st.Utilization)

	fmt.Println("\n| Static Size | rec/page | Static Util | Slotted Util |")
	fmt.Println("|-------------|----------|-------------|--------------|")
	for _, s := range []int{32, 64, 128, 256} {
		fmt.Printf("| %11d | %8d | %10.2f%% | %11.2f%% |\n",
			s, pf.PageSize/s, staticUtil(s), st.Utilization)
	}
}
