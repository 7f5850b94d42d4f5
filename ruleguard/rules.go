package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two consecutive guards returning the same value are mergeable.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// Nested loops are a useful extract-function signal in the dispatch path.
	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

func httpHygiene(m dsl.Matcher) {
	// Outbound requests without a context defeat the per-request LLM timeout.
	m.Match(`http.NewRequest($method, $url, $body)`).
		Report(`use http.NewRequestWithContext so model calls honor request cancellation`).
		Suggest(`http.NewRequestWithContext(ctx, $method, $url, $body)`)

	// A raw time.Sleep in a handler or consumer blocks shutdown.
	m.Match(`time.Sleep($d); $next`).
		Where(m["d"].Const).
		Report(`prefer a select on ctx.Done() and a timer over a bare sleep`)
}
