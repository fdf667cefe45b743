package worker

import (
	"net/http"
	"strings"
)

// DefaultClientIPHeader é o header que a Cloudflare preenche com o IP do visitante.
const DefaultClientIPHeader = "CF-Connecting-IP"

// UnknownClient é a identidade usada quando o header não veio.
// Todos esses clientes dividem a mesma janela de rate limit.
const UnknownClient = "unknown"

type ClientIDFunc func(r *http.Request) string

// HeaderClientID lê a identidade do cliente de um header definido pela borda.
// Não cai para RemoteAddr: atrás do proxy ele seria o IP do próprio proxy.
func HeaderClientID(header string) ClientIDFunc {
	if header == "" {
		header = DefaultClientIPHeader
	}
	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return v
		}
		return UnknownClient
	}
}
