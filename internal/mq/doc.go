// Package mq предоставляет транспорт задач и результатов.
//
// Структура:
//   - channel.go    — контракт Channel (Send / Receive / Delete) и Message
//   - codec.go      — wire-формат Task и Result, ошибки декодирования
//   - publisher.go  — кодирование и отправка Task / Result
//   - consumer.go   — цикл receive → handle → acknowledge
//   - broker.go     — выбор реализации канала по конфигурации
//   - memory.go     — канал в памяти процесса (тесты, embedded-режим)
//   - sqs.go        — AWS SQS
//   - connection.go, topology.go, amqp.go — RabbitMQ
//   - redis.go      — Redis (LIST + ZSET с visibility timeout)
//
// Все реализации дают одинаковую семантику: доставка at-least-once,
// порядок не гарантируется, полученное, но не подтверждённое сообщение
// снова становится доступным после истечения visibility timeout.
//
// Каналы:
//   - Task Channel   — Submitter → Worker
//   - Result Channel — Worker → Collector
package mq
