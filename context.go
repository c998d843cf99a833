package ardentid

import "context"

type clientIPContextKey struct{}
type txnContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine copies it
// into audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithTxn attaches a transaction (request) ID to ctx. The Engine copies it
// into audit events so they can be joined with access logs.
func WithTxn(ctx context.Context, txn string) context.Context {
	return context.WithValue(ctx, txnContextKey{}, txn)
}

// TxnFromContext returns the transaction ID set by WithTxn, or "".
func TxnFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	txn, _ := ctx.Value(txnContextKey{}).(string)
	return txn
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
