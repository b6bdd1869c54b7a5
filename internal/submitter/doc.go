// Package submitter создаёт задачи и отправляет их в Task Channel.
//
// Submit назначает задаче ID, публикует её и записывает в локальный
// журнал (TaskLog). Если отправка не удалась, задача не считается
// отправленной и в журнал не попадает; повторять вызов должен
// вызывающий код.
package submitter
