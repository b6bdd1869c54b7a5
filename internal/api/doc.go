// Package api содержит HTTP API отправителя задач.
//
// Структура:
//   - handler.go        — Handler с DI (submitter, result store, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery, metrics)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — Data Transfer Objects (request/response)
//   - task_handler.go   — обработчики для /tasks
//   - result_handler.go — обработчики для /results
//
// API принимает задачи, показывает журнал отправленных задач и
// результаты, собранные Collector'ом.
package api
