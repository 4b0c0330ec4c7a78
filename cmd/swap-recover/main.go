// Command swap-recover is C15 (SPEC_FULL.md §4 C15): the out-of-band
// operator tool of spec.md §9. It takes a swap_id and the
// refund_tx_hash/refund_amount an operator's wallet already broadcast,
// and calls Store.MarkRefunded — the only caller of refund_pending ->
// refunded. It never signs or broadcasts anything itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/cbbtc-swap/coordinator/store"
)

func main() {
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "transactional store connection (DATABASE_URL)")
	swapID := flag.String("swap-id", "", "swap_id to mark refunded")
	refundTxHash := flag.String("refund-tx-hash", "", "on-chain refund transaction hash already broadcast by the operator")
	refundAmount := flag.String("refund-amount", "", "refunded amount, decimal integer, smallest unit")
	flag.Parse()

	if *databaseURL == "" || *swapID == "" || *refundTxHash == "" || *refundAmount == "" {
		fmt.Fprintln(os.Stderr, "usage: swap-recover -database-url=... -swap-id=... -refund-tx-hash=... -refund-amount=...")
		os.Exit(2)
	}

	amount, ok := new(big.Int).SetString(*refundAmount, 10)
	if !ok {
		fmt.Fprintf(os.Stderr, "swap-recover: invalid -refund-amount %q\n", *refundAmount)
		os.Exit(2)
	}

	st, err := store.Open(*databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swap-recover: connect to store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	sw, err := st.ByID(ctx, store.SwapID(*swapID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "swap-recover: lookup swap %s: %v\n", *swapID, err)
		os.Exit(1)
	}
	if sw.Status != store.StatusRefundPending {
		fmt.Fprintf(os.Stderr, "swap-recover: swap %s is in status %s, not refund_pending; refusing\n", *swapID, sw.Status)
		os.Exit(1)
	}

	if err := st.MarkRefunded(ctx, sw.SwapID, *refundTxHash, amount); err != nil {
		fmt.Fprintf(os.Stderr, "swap-recover: mark refunded: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("swap %s marked refunded (tx=%s amount=%s)\n", *swapID, *refundTxHash, amount.String())
}
