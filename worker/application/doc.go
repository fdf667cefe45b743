// Package application contém os casos de uso do worker: rate limit por
// cliente, o gate do formulário de contato e o refresh/leitura do ranking.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Gate.Submit(ctx, clientID, s) retorna um domain.Result (aceito ou motivo).
package application

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("edge-worker/application")
