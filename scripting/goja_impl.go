package scripting

import (
	"context"

	"github.com/dop251/goja"
)

type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val.Export(), nil
}

func (e *GojaEngine) RegisterDocument(doc DocumentProxy) error {
	docObj := e.vm.NewObject()

	// 'content' is a live accessor so scripts can both read and rewrite
	// the extracted text.
	err := docObj.DefineAccessorProperty("content",
		e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return e.vm.ToValue(doc.Content())
		}),
		e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				doc.SetContent(call.Arguments[0].String())
			}
			return goja.Undefined()
		}),
		goja.FLAG_TRUE,
		goja.FLAG_TRUE,
	)
	if err != nil {
		return err
	}

	err = docObj.DefineAccessorProperty("title",
		e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return e.vm.ToValue(doc.Title())
		}),
		e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 {
				doc.SetTitle(call.Arguments[0].String())
			}
			return goja.Undefined()
		}),
		goja.FLAG_TRUE,
		goja.FLAG_TRUE,
	)
	if err != nil {
		return err
	}

	if err := docObj.Set("mimeType", doc.MimeType()); err != nil {
		return err
	}

	err = docObj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		return e.vm.ToValue(doc.Attribute(call.Arguments[0].String()))
	})
	if err != nil {
		return err
	}

	err = docObj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) >= 2 {
			doc.SetAttribute(call.Arguments[0].String(), call.Arguments[1].String())
		}
		return goja.Undefined()
	})
	if err != nil {
		return err
	}

	if err := e.vm.Set("document", docObj); err != nil {
		return err
	}

	return e.vm.Set("log", func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		doc.Log(msg)
		return goja.Undefined()
	})
}
