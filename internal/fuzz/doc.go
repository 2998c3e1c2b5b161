// Package fuzztests houses Go fuzz harnesses for the shell and Makefile
// front ends and the purifier. Its goal is to smoke test robustness: no
// panics, no hangs, and well-formed spans on arbitrary inputs.
//
// Назначение: загружать байты в FileSet и прогонять их через парсеры и
// purify, проверяя структурные инварианты из internal/testkit.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/source, internal/shell/parser, internal/makefile/parser,
// internal/purify, internal/testkit.

package fuzztests
