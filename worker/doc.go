// Package worker expõe o edge worker via HTTP (gin): formulário de contato,
// ranking de posts populares e disparo manual do refresh.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (Gate, RateLimiter, Refresher, RankingReader, Scheduler)
//   - infra: implementações concretas (KV, email, analytics, throttle, estatísticas)
//   - worker (este pacote): rotas, extração do cliente, tradução para status/headers, logging
//
// Fluxo de POST /contact:
//
//  1. Throttle por cliente (token bucket) antes do roteamento
//  2. Extrai o cliente do header confiável (CF-Connecting-IP por padrão)
//  3. Lê o corpo (JSON ou form) e chama application.Gate
//  4. Traduz o RejectReason para 400 / 429 / 500
//
// Variáveis de ambiente do binário (cmd/worker) são lidas pelo pacote config.
package worker
