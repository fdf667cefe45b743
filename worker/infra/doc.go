// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - MemoryKV / RedisKV / SQLiteKV: domain.KVStore com TTL
//   - SESDispatcher / SMTPDispatcher: domain.Dispatcher
//   - CloudflareAnalytics: domain.AnalyticsSource via GraphQL
//   - ThrottleStore: token bucket por cliente usando golang.org/x/time/rate
//   - NewSlotPool: semáforo simples para o refresh do ranking
package infra
