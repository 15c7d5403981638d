package worker_test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/petrijr/raven/pkg/worker"
)

// ExampleSingleWorker demonstrates submitting items to a SingleWorker and
// waiting for them to be processed.
func ExampleSingleWorker() {
	var wg sync.WaitGroup
	prefix := "processed:"

	w := worker.New(prefix, func(prefix string, item string) {
		defer wg.Done()
		fmt.Println(prefix + strings.ToUpper(item))
	})

	for _, s := range []string{"a", "b", "c"} {
		wg.Add(1)
		w.Submit(s)
	}
	wg.Wait()

	fmt.Println("alive:", w.Alive(), "generation:", w.Generation())
	// Output:
	// processed:A
	// processed:B
	// processed:C
	// alive: true generation: 1
}
