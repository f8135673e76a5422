package cmd

import (
	"fmt"
	"time"

	"github.com/saeedzahedi/pingcheck/core"
)

func printOnReply(s *core.Session, r *core.Reply) {
	if r.TTL > 0 {
		fmt.Printf("%d bytes from %s: icmp_seq=%d ttl=%d time=%s\n",
			r.Len, r.Src, r.Seq, r.TTL, r.Time.Truncate(time.Microsecond))
		return
	}

	fmt.Printf("%d bytes from %s: icmp_seq=%d time=%s\n",
		r.Len, r.Src, r.Seq, r.Time.Truncate(time.Microsecond))
}

func printVerdict(s *core.Session) {
	verdict := "unreachable"
	if s.Verdict() {
		verdict = "reachable"
	}

	fmt.Printf("--- %s probe verdict ---\n", s.Address())
	fmt.Printf("%d requests transmitted, %d replies received: %s\n",
		s.TotalSent(), s.NumReplies(), verdict)
}
