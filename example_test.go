package signoff_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/signoff"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/dsl"
)

// Example demonstrates a purchase order that needs two signatures in order,
// and a finance sign-off only above a threshold.
func Example() {
	b := dsl.New("purchase")
	b.Start("start").Go("heads")
	b.Sequential("heads", "team-lead", "director").Go("threshold")
	b.Condition("threshold").
		Rule("big", "finance", dsl.And(dsl.Cond("total", ">=", 10000))).
		Default("skip").
		On("finance", "finance").
		On("skip", "end")
	b.Single("finance", "cfo").Go("end")
	b.End("end")

	loader, err := b.Loader()
	if err != nil {
		log.Fatal(err)
	}
	eng, err := signoff.New(loader)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	inst, err := eng.Submit(ctx, "purchase", "alice", map[string]any{"total": "12500"})
	if err != nil {
		log.Fatal(err)
	}

	for _, actor := range []string{"team-lead", "director", "cfo"} {
		approvers, _ := eng.CurrentApprovers(ctx, inst.ID)
		out, err := eng.Approve(ctx, inst.ID, domain.Decision{ActorID: actor, Result: "approve"})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%v -> %s at %s\n", approvers, out.Status, out.NodeID)
	}

	// Output:
	// [team-lead] -> pending at heads
	// [director] -> pending at finance
	// [cfo] -> approved at end
}
