// Package domain define contratos e tipos do worker: formulário de contato,
// ranking de conteúdo e os colaboradores externos (KV, email, analytics).
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros com fakes em memória.
package domain
