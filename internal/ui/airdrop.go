package ui

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/chain"
)

// PreviewBlock renders what a submission would do.
func PreviewBlock(p *airdrop.Preview, network string) string {
	pairs := [][2]string{
		{"Network", network},
		{"TSender", p.TSender},
	}
	if p.Token != nil {
		pairs = append(pairs,
			[2]string{"Token Name", tokenLabel(p.Token)},
			[2]string{"Token", p.Token.Address},
		)
	}
	pairs = append(pairs,
		[2]string{"Recipients", strconv.Itoa(p.RecipientCount)},
		[2]string{"Amount (wei)", p.Total.String()},
		[2]string{"Amount (tokens)", p.FormattedAmount},
		[2]string{"Sum of amounts", strconv.FormatFloat(p.TotalFloat, 'f', -1, 64)},
	)
	if p.Allowance != nil {
		pairs = append(pairs, [2]string{"Allowance", p.Allowance.String()})
		if p.NeedsApproval {
			pairs = append(pairs, [2]string{"Approval", StyleWarning.Render("required before airdrop")})
		} else {
			pairs = append(pairs, [2]string{"Approval", "not needed"})
		}
	}
	return KeyValueBlock("Transaction Details", pairs)
}

// RecordBlock renders the outcome of a submission. ch may be nil.
func RecordBlock(rec *airdrop.Record, ch *chain.Chain) string {
	status := string(rec.Status)
	switch rec.Status {
	case airdrop.StatusSuccess:
		status = StyleSuccess.Render("success")
	case airdrop.StatusFailed:
		status = StyleError.Render("failed")
	}

	pairs := [][2]string{
		{"Status", status},
		{"Token Name", tokenLabel(&rec.Token)},
		{"Amount (wei)", bigString(rec.Total)},
		{"Amount (tokens)", rec.FormattedAmount},
		{"Recipients", strconv.Itoa(rec.RecipientCount)},
	}
	if rec.ApprovalHash != "" {
		pairs = append(pairs, [2]string{"Approval Tx", rec.ApprovalHash})
	}
	if rec.Hash != "" {
		pairs = append(pairs, [2]string{"Airdrop Tx", rec.Hash})
	}
	if rec.BlockNumber > 0 {
		pairs = append(pairs,
			[2]string{"Block", strconv.FormatUint(rec.BlockNumber, 10)},
			[2]string{"Gas Used", strconv.FormatUint(rec.GasUsed, 10)},
		)
	}
	if ch != nil && rec.Hash != "" {
		if url := ch.TxURL(rec.Hash); url != "" {
			pairs = append(pairs, [2]string{"Explorer", url})
		}
	}
	if rec.Err != "" {
		pairs = append(pairs, [2]string{"Error", rec.Err})
	}
	return KeyValueBlock("Airdrop "+rec.ID, pairs)
}

// StepMessage is the spinner text for a workflow event.
func StepMessage(e airdrop.Event) string {
	switch e.Step {
	case airdrop.StepAllowance:
		return "Allowance checked"
	case airdrop.StepApprove:
		return fmt.Sprintf("Waiting for approval %s to be mined...", TruncateAddr(e.Hash))
	case airdrop.StepApproveConfirmed:
		return "Approval confirmed, submitting airdrop..."
	case airdrop.StepAirdrop:
		return fmt.Sprintf("Waiting for airdrop %s to be mined...", TruncateAddr(e.Hash))
	case airdrop.StepAirdropConfirmed:
		return "Airdrop confirmed"
	case airdrop.StepFailed:
		return "Failed"
	}
	return string(e.Step)
}

func tokenLabel(t *chain.TokenInfo) string {
	switch {
	case t == nil || (t.Name == "" && t.Symbol == ""):
		return "unknown"
	case t.Symbol == "":
		return t.Name
	case t.Name == "":
		return t.Symbol
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Symbol)
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
